package lifecycle

// StartAll starts each runner in order.
func StartAll(runners []Runner) {
	for _, r := range runners {
		r.Start()
	}
}

// StopAll requests every runner to stop, in order, without waiting.
func StopAll(runners []Runner) {
	for _, r := range runners {
		r.Stop()
	}
}

// WaitAll waits for each runner in order.
func WaitAll(runners []Runner) {
	for _, r := range runners {
		r.Wait()
	}
}
