package node

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Search results are sorted, free of duplicates and contain exactly the ids
// with a matching service.
func TestProperty_SearchServicesSortedAndExact(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	m := fooBarModel(t)

	properties.Property("search matches brute force over the directory", prop.ForAll(
		func(owners []int, foos []int64, threshold int64) bool {
			n := New()
			expected := map[string]bool{}
			for i, owner := range owners {
				if i >= len(foos) {
					break
				}
				id := fmt.Sprintf("agent-%02d", owner)
				if err := n.RegisterService(id, fooBar(t, m, foos[i], "bar")); err != nil {
					t.Logf("register failed: %v", err)
					return false
				}
				if foos[i] > threshold {
					expected[id] = true
				}
			}

			got := n.SearchServices(context.Background(), fooGreaterThan(t, m, threshold))

			if !sort.StringsAreSorted(got) {
				t.Logf("not sorted: %v", got)
				return false
			}
			if len(slices.Compact(slices.Clone(got))) != len(got) {
				t.Logf("duplicates: %v", got)
				return false
			}
			if len(got) != len(expected) {
				t.Logf("expected %d ids, got %v", len(expected), got)
				return false
			}
			for _, id := range got {
				if !expected[id] {
					t.Logf("unexpected id %s", id)
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 9)),    // owners
		gen.SliceOf(gen.Int64Range(0, 50)), // foos
		gen.Int64Range(0, 50),              // threshold
	))

	properties.TestingRun(t)
}

// Registering the same agents in any order yields the same search result.
func TestProperty_SearchAgentsOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	m := fooBarModel(t)

	properties.Property("insertion order does not change results", prop.ForAll(
		func(ids []string, foo int64) bool {
			forward, backward := New(), New()
			for _, id := range ids {
				_ = forward.RegisterAgent(id, fooBar(t, m, foo, id))
			}
			for i := len(ids) - 1; i >= 0; i-- {
				_ = backward.RegisterAgent(ids[i], fooBar(t, m, foo, ids[i]))
			}
			q := fooGreaterThan(t, m, 10)
			return slices.Equal(
				forward.SearchAgents(context.Background(), q),
				backward.SearchAgents(context.Background(), q),
			)
		},
		gen.SliceOf(gen.Identifier()),
		gen.Int64Range(0, 20),
	))

	properties.TestingRun(t)
}
