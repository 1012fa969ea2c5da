package types

import (
	"sort"
	"sync"

	"github.com/arraydb/arraydb/pkg/dberr"
)

// Converter converts a Value from one type to another, carrying a
// non-negative conversion cost used by function resolution to pick the
// cheapest applicable overload.
type Converter struct {
	From, To Type
	Cost     int
	Convert  func(Value) (Value, error)
}

// Func is a registered implementation of a named function over a fixed
// argument-type signature.
type Func struct {
	Name        string
	ArgTypes    []Type
	Commutative bool
	Call        func(args []Value) (Value, error)
	seq         int // registration order, for tie-breaking
}

// FuncCatalog resolves (name, argTypes) to the cheapest applicable Func:
// exact match; else the minimum total converter cost across registered
// variants, with commutative two-argument variants also competing with
// their arguments swapped; else FunctionNotFound.
type FuncCatalog struct {
	mu         sync.RWMutex
	exact      map[string]*Func   // keyed by name+signature
	byName     map[string][]*Func // all variants of a name
	converters map[string]*Converter // keyed by From.Name+"->"+To.Name
	seq        int
}

// NewFuncCatalog returns an empty catalog. One catalog lives in the engine
// context for the process's lifetime.
func NewFuncCatalog() *FuncCatalog {
	return &FuncCatalog{
		exact:      make(map[string]*Func),
		byName:     make(map[string][]*Func),
		converters: make(map[string]*Converter),
	}
}

func sigKey(name string, argTypes []Type) string {
	k := name
	for _, t := range argTypes {
		k += "|" + t.Name
	}
	return k
}

// RegisterConverter adds a named (From,To) converter with its cost. Call
// only at startup.
func (c *FuncCatalog) RegisterConverter(conv Converter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.converters[conv.From.Name+"->"+conv.To.Name] = &conv
}

// Register adds a function implementation for exact-match lookup and for
// the variant search used when no exact match exists.
func (c *FuncCatalog) Register(f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	f.seq = c.seq
	fp := &f
	c.exact[sigKey(f.Name, f.ArgTypes)] = fp
	c.byName[f.Name] = append(c.byName[f.Name], fp)
}

// converterCost returns the cost to convert from `have` to `want`, 0 if
// identical, or -1 if no converter exists.
func (c *FuncCatalog) converterCost(have, want Type) int {
	if have.Name == want.Name {
		return 0
	}
	conv, ok := c.converters[have.Name+"->"+want.Name]
	if !ok {
		return -1
	}
	return conv.Cost
}

// ResolveResult is the outcome of function resolution: the chosen
// implementation and whether its commutative arguments must be swapped
// before calling.
type ResolveResult struct {
	Func *Func
	Swap bool
}

// Resolve implements the policy of §4.1: exact match; else a minimum-cost
// search over every variant, in which a commutative variant is also
// costed with its two arguments swapped (a non-swapped candidate wins a
// cost tie, then earliest registration); else FunctionNotFound.
func (c *FuncCatalog) Resolve(name string, argTypes []Type) (ResolveResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if f, ok := c.exact[sigKey(name, argTypes)]; ok {
		return ResolveResult{Func: f}, nil
	}

	variants := c.byName[name]
	if len(variants) == 0 {
		return ResolveResult{}, dberr.Newf(dberr.FunctionNotFound, "types", "no function named %q", name)
	}

	type candidate struct {
		f    *Func
		cost int
		swap bool
	}
	var candidates []candidate

	for _, f := range variants {
		if len(f.ArgTypes) != len(argTypes) {
			continue
		}
		if cost, ok := c.totalCost(f.ArgTypes, argTypes); ok {
			candidates = append(candidates, candidate{f: f, cost: cost})
		}
		if f.Commutative && len(argTypes) == 2 {
			swapped := []Type{argTypes[1], argTypes[0]}
			if cost, ok := c.totalCost(f.ArgTypes, swapped); ok {
				candidates = append(candidates, candidate{f: f, cost: cost, swap: true})
			}
		}
	}

	if len(candidates) == 0 {
		return ResolveResult{}, dberr.Newf(dberr.FunctionNotFound, "types", "no applicable converters for %q%v", name, argTypes)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].cost != candidates[j].cost {
			return candidates[i].cost < candidates[j].cost
		}
		// non-swapped wins ties with swapped for the same func; otherwise
		// earliest registration wins.
		if candidates[i].swap != candidates[j].swap {
			return !candidates[i].swap
		}
		return candidates[i].f.seq < candidates[j].f.seq
	})

	best := candidates[0]
	return ResolveResult{Func: best.f, Swap: best.swap}, nil
}

// totalCost sums per-argument converter cost from `have` to `want`; ok is
// false if any argument has no applicable converter.
func (c *FuncCatalog) totalCost(want, have []Type) (int, bool) {
	total := 0
	for i := range want {
		cost := c.converterCost(have[i], want[i])
		if cost < 0 {
			return 0, false
		}
		total += cost
	}
	return total, true
}
