package main

import (
	"log"
	"sync"
	"time"
)

func startBackgroundRoutine(name string, workfn func(<-chan struct{})) func() {
	log.Printf("Starting %s routine", name)
	closechan := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		workfn(closechan)
		wg.Done()
	}()
	return sync.OnceFunc(func() {
		log.Printf("Shutting down %s routine", name)
		closechan <- struct{}{}
		log.Printf("Waiting for routine %s to exit", name)
		wg.Wait()
		log.Printf("Routine %s done", name)
	})
}

// startTickerRoutine runs fn every interval until stopped.
func startTickerRoutine(name string, interval time.Duration, fn func()) func() {
	return startBackgroundRoutine(name, func(exitchan <-chan struct{}) {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-exitchan:
				return
			case <-t.C:
				fn()
			}
		}
	})
}
