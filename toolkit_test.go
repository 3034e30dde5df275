package uitask

import "testing"

func TestManualToolkitPumpBatches(t *testing.T) {
	tk := NewManualToolkit()

	var order []int
	tk.Post(func() { order = append(order, 1) })
	tk.Post(func() {
		order = append(order, 2)
		// Posted mid-pump: runs on the NEXT pump.
		tk.Post(func() { order = append(order, 3) })
	})

	if tk.PendingPosts() != 2 {
		t.Errorf("Expected 2 pending posts, got %d", tk.PendingPosts())
	}

	tk.Pump()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("First pump ran %v, expected [1 2]", order)
	}
	if tk.PendingPosts() != 1 {
		t.Errorf("Expected the mid-pump post to remain, got %d", tk.PendingPosts())
	}

	tk.Pump()

	if len(order) != 3 || order[2] != 3 {
		t.Errorf("Second pump ran %v, expected [1 2 3]", order)
	}
}

func TestTaskHandleDoneHookOrdering(t *testing.T) {
	h := newTaskHandle(1, "hooked")

	var sawCompleted bool
	h.addDoneHook(func() {
		// Hooks run after the result slot fills but before Completed
		// flips, so work they post is queued before waiters wake.
		sawCompleted = h.Completed()
		if result, _ := h.Result(); result != "r" {
			t.Errorf("Hook saw result %v, expected \"r\"", result)
		}
	})

	h.complete("r", nil)

	if sawCompleted {
		t.Error("Hook should run before Completed reports true")
	}
	if !h.Completed() {
		t.Error("Handle should report completed after complete")
	}

	// Late hooks run immediately.
	lateRan := false
	h.addDoneHook(func() { lateRan = true })
	if !lateRan {
		t.Error("Hook added after completion should run immediately")
	}
}
