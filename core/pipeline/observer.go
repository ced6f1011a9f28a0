package pipeline

import "sync"

// Stage names one step of a run
type Stage string

const (
	StageAggregate Stage = "aggregate"
	StageResolve   Stage = "resolve"
	StageEnrich    Stage = "enrich"
	StageFeatures  Stage = "features"
)

// Observer is notified about the progress of a run. total is -1 if the
// number of units of a stage is unknown.
type Observer interface {
	StageStarted(stage Stage, total int)
	Advance(stage Stage, n int)
	StageFinished(stage Stage)
}

// lockedObserver serializes calls of concurrent tasks
type lockedObserver struct {
	mu   sync.Mutex
	next Observer
}

func (o *lockedObserver) StageStarted(stage Stage, total int) {
	if o == nil || o.next == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.StageStarted(stage, total)
}

func (o *lockedObserver) Advance(stage Stage, n int) {
	if o == nil || o.next == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.Advance(stage, n)
}

func (o *lockedObserver) StageFinished(stage Stage) {
	if o == nil || o.next == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.StageFinished(stage)
}
