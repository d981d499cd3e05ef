// Package workerpool provides a fixed-size worker pool with per-call result
// rooms. The ingest path uses it to parallelize chunk writes without
// spawning an unbounded number of goroutines per call.
package workerpool

import (
	"fmt"
	"runtime"
	"sync"
)

type WorkerPool struct {
	config    Config
	taskQueue chan Task
}

type Config struct {
	WorkerCount  int
	GlobalBuffer int
}

// Room collects the results of one batch of tasks. Tasks from different
// rooms share the pool's workers but never each other's results.
type Room struct {
	resultChan chan interface{}
	wg         sync.WaitGroup
	wp         *WorkerPool
}

type Task struct {
	run  func() interface{}
	room *Room
}

func NewWorkerPool(config Config) *WorkerPool {
	if config.WorkerCount < 1 {
		config.WorkerCount = runtime.NumCPU() * 3
	}
	if config.GlobalBuffer < 1 {
		config.GlobalBuffer = 10000
	}

	wp := &WorkerPool{
		config:    config,
		taskQueue: make(chan Task, config.GlobalBuffer),
	}

	for i := 0; i < config.WorkerCount; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	for t := range wp.taskQueue {
		t.room.resultChan <- t.run()
		t.room.wg.Done()
	}
}

// CreateRoom returns a room with buffer space for size results. Submitting
// more than size tasks without collecting blocks the workers.
func (wp *WorkerPool) CreateRoom(size int) *Room {
	return &Room{
		resultChan: make(chan interface{}, size),
		wp:         wp,
	}
}

// NewTaskWaitForFreeSlot enqueues job, blocking while the global queue is
// full.
func (ro *Room) NewTaskWaitForFreeSlot(job func() interface{}) {
	ro.wg.Add(1)
	ro.wp.taskQueue <- Task{run: job, room: ro}
}

// NewTask enqueues job or fails immediately when the global queue or the
// room buffer is full.
func (ro *Room) NewTask(job func() interface{}) error {
	if len(ro.wp.taskQueue) == cap(ro.wp.taskQueue) {
		return fmt.Errorf("global task buffer is full")
	}
	if len(ro.resultChan) == cap(ro.resultChan) {
		return fmt.Errorf("room result buffer is full")
	}

	ro.NewTaskWaitForFreeSlot(job)
	return nil
}

// Collect waits for all of the room's tasks and returns their results in
// completion order.
func (ro *Room) Collect() []interface{} {
	go ro.waitAndClose()

	results := make([]interface{}, 0)
	for result := range ro.resultChan {
		results = append(results, result)
	}
	return results
}

func (ro *Room) waitAndClose() {
	ro.wg.Wait()
	close(ro.resultChan)
}

// Close stops the workers once the queued tasks have drained. Submitting
// tasks after Close panics.
func (wp *WorkerPool) Close() {
	close(wp.taskQueue)
}
