// Copyright 2026 OEF-Go Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package dialogue correlates the stateless messages an agent receives into
ordered multi-turn negotiations.

A dialogue is keyed by the peer's public key and a dialogue id. The side
that opens a dialogue draws a fresh id; the answering side learns the id
from the first message it receives. Agent routes each inbound message to
the SingleDialogue registered under (origin, dialogue id):

  - a message or CFP on an unknown key goes to the NewSessionHandler, which
    may register a dialogue for it;
  - a Propose, Accept or Decline on an unknown key is a sequencing error
    and fails with ErrDialogueNotFound.

Group runs one dialogue per counterparty, collects a Propose from each and
accepts the best offer while declining the rest.
*/
package dialogue
