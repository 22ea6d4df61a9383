// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linkwalk

// Strategy recognises one kind of obstacle and proposes the actions that
// get past it. Implementations must be pure: the same snapshot always
// yields the same actions, in the same order.
type Strategy interface {
	Name() string
	Propose(s *PageSnapshot) []AdvanceAction
}

// Candidate is a proposed action together with the strategy that found it.
type Candidate struct {
	Strategy string
	Action   AdvanceAction
}

func (c Candidate) String() string {
	return c.Strategy + ": " + c.Action.String()
}

// Classifier runs an ordered list of strategies over a snapshot. Earlier
// strategies rank higher; the first candidate is the preferred one and the
// rest are fallbacks.
type Classifier struct {
	strategies []Strategy
}

// NewClassifier returns a classifier running strategies in the given order.
// With no strategies it uses DefaultStrategies with default options.
func NewClassifier(strategies ...Strategy) *Classifier {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(DefaultOptions())
	}
	return &Classifier{strategies: append([]Strategy(nil), strategies...)}
}

// DefaultStrategies returns the built-in strategies in priority order:
// meta refresh, script redirect, challenge widget, form, continue control,
// countdown.
func DefaultStrategies(opts *Options) []Strategy {
	opts = mergeOptions(DefaultOptions(), opts)
	return []Strategy{
		metaRefreshStrategy{},
		scriptRedirectStrategy{},
		challengeStrategy{},
		formStrategy{},
		controlStrategy{},
		countdownStrategy{floor: opts.CountdownFloor, cap: opts.CountdownCap},
	}
}

// Strategies returns the strategies in priority order.
func (c *Classifier) Strategies() []Strategy {
	return append([]Strategy(nil), c.strategies...)
}

// With returns a classifier that runs s at position i, shifting later
// strategies down. An out of range index appends.
func (c *Classifier) With(i int, s Strategy) *Classifier {
	list := c.Strategies()
	if i < 0 || i >= len(list) {
		return &Classifier{strategies: append(list, s)}
	}
	list = append(list[:i], append([]Strategy{s}, list[i:]...)...)
	return &Classifier{strategies: list}
}

// Classify returns every candidate action for s, highest priority first,
// without duplicates. An empty result means no advance path was found.
func (c *Classifier) Classify(s *PageSnapshot) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	for _, st := range c.strategies {
		for _, a := range st.Propose(s) {
			key := a.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Candidate{Strategy: st.Name(), Action: a})
		}
	}
	return out
}
