// Package pipeline drives the backend detection stages as one sequential
// run: gap detection, spoofing, loitering, ship-to-ship, then scoring. Each
// stage is awaited before the next starts and the run halts at the first
// failure, naming the stage that failed. Single-stage triggers are exposed
// independently of the full run.
package pipeline
