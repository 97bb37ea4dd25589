package logview

import "context"

// tailEngine tracks the live follow subscription
type tailEngine struct {
	gen       uint64
	cancel    context.CancelFunc
	following bool
}

func (t *tailEngine) begin(cancel context.CancelFunc) uint64 {
	t.stop()
	t.gen++
	t.cancel = cancel
	t.following = true
	return t.gen
}

func (t *tailEngine) current(gen uint64) bool {
	return gen == t.gen && t.following
}

func (t *tailEngine) stop() {
	t.following = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
