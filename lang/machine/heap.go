package machine

import "github.com/mna/cedar/lang/value"

// cell is a single mutable slot in the VM's heap area (spec §3 "Heap
// cell"). Concatenation results live here so the collector can reclaim
// them once no stack slot references them anymore.
type cell struct {
	value value.Value
	mark  bool
}

// heap is the VM's mark-and-compact managed area (spec §4.3 "Garbage
// collection"). Only string concatenation results are ever allocated here
// today (spec §9), but the indirection through value.Heap(index) already
// supports a cell holding another value.Heap reference, so a future value
// kind can reuse the same collector without a format change.
type heap struct {
	cells []cell
}

func (h *heap) alloc(v value.Value) value.Heap {
	h.cells = append(h.cells, cell{value: v})
	return value.Heap(len(h.cells) - 1)
}

func (h *heap) get(i value.Heap) value.Value {
	return h.cells[i].value
}

// resolve follows a chain of value.Heap indirections to the concrete value
// at the end of it. The spec allows cells to point at other cells (§9
// "Heap/value cycles"); this walk is iterative and cycle-safe so a
// malformed (cyclic) chain resolves to Null instead of causing a stack
// overflow or infinite loop.
func (h *heap) resolve(v value.Value) value.Value {
	seen := map[value.Heap]bool{}
	for {
		ref, ok := v.(value.Heap)
		if !ok {
			return v
		}
		if seen[ref] {
			return value.Nil
		}
		seen[ref] = true
		v = h.get(ref)
	}
}

// collect runs one mark-and-compact cycle, rooted at the operand stack
// (spec §4.3 "Garbage collection"). Globals are not scanned: spec §9
// documents this as sound only because strings stored in globals are
// stored directly rather than as value.Heap references, an invariant the
// VM preserves by resolving any value.Heap to its concrete value before
// DefineGlobal/SetGlobal store it.
func (h *heap) collect(stack []value.Value) {
	if len(h.cells) == 0 {
		return
	}

	marked := make([]bool, len(h.cells))
	var markChain func(value.Value)
	markChain = func(v value.Value) {
		seen := map[int]bool{}
		for {
			ref, ok := v.(value.Heap)
			if !ok {
				return
			}
			idx := int(ref)
			if seen[idx] || idx < 0 || idx >= len(marked) {
				return
			}
			seen[idx] = true
			marked[idx] = true
			v = h.cells[idx].value
		}
	}
	for _, v := range stack {
		markChain(v)
	}

	// Compact: drop unmarked cells, preserving survivor order, and remap
	// every remaining value.Heap index (in the surviving cells and, in
	// place, in stack) by how many cells ahead of it were dropped.
	remap := make([]int, len(h.cells))
	survivors := make([]cell, 0, len(h.cells))
	for i, c := range h.cells {
		if marked[i] {
			remap[i] = len(survivors)
			survivors = append(survivors, c)
		} else {
			remap[i] = -1
		}
	}
	for i := range survivors {
		if ref, ok := survivors[i].value.(value.Heap); ok {
			survivors[i].value = value.Heap(remap[int(ref)])
		}
		survivors[i].mark = false
	}
	for i, v := range stack {
		if ref, ok := v.(value.Heap); ok {
			stack[i] = value.Heap(remap[int(ref)])
		}
	}
	h.cells = survivors
}
