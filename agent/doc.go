// Copyright 2026 OEF-Go Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides the base OEF agent.

# Overview

An Agent owns one proxy.Proxy and exposes the operations an agent performs
against its node: registering descriptions and services, searching the
directories and sending messages to other agents. Every outbound operation
builds exactly one envelope and queues it without waiting for the network.

Inbound notifications are delivered by Run to a proxy.Handler. Agent itself
implements proxy.Handler with default methods that log a warning naming the
unhandled callback, so an application only writes the handlers it needs:

	type Seller struct {
	    *agent.Agent
	    price int64
	}

	func (s *Seller) OnCFP(msgID, dialogueID int32, origin string, target int32, _ protocol.CFPPayload) error {
	    return s.SendPropose(ctx, msgID+1, dialogueID, origin, target+1, protocol.Proposals{priced(s.price)})
	}

	seller := &Seller{Agent: agent.NewLocalAgent("seller", n)}
	if err := seller.Connect(ctx); err != nil { ... }
	go seller.Run(ctx, seller)

# Lifecycle

	Init ──Connect──▶ Connected ──Run──▶ Running
	                      ▲                 │
	                      └──── Stop ───────┘
	Connected/Running ──Disconnect──▶ Stopped ──Connect──▶ Connected

Disconnect stops a running loop before the transport is closed.
*/
package agent
