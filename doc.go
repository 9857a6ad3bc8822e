// Package seam animates window hand-offs between a home surface and remote
// application windows: the icon that grows into a launching app, the app
// that slides back home, and the running task that shrinks into overview.
//
// The window manager owns the real surfaces. It lends them to seam as
// leashes for the length of one transition, and waits until the transition's
// [Result] is finished before taking them back. Every frame, seam commits
// one atomic [Transaction] of per-leash updates (matrix, alpha, crop, corner
// and shadow radius) to a [Compositor].
//
// # Quick start
//
// Wire an [Engine] with a remote service, a lifecycle host and a
// compositor, register the transitions, then drive it from a frame loop:
//
//	engine, err := seam.NewEngine(seam.Options{
//		Config:     seam.DefaultConfig(),
//		Remote:     client,
//		Host:       home,
//		Overview:   overview,
//		Compositor: compositor,
//	})
//	if err != nil { ... }
//	if err := engine.Start(ctx); err != nil { ... }
//
//	func (g *Game) Update() error {
//		g.engine.Update(time.Second / time.Duration(ebiten.TPS()))
//		return nil
//	}
//
// Or run it on its own goroutine with [Engine.Run].
//
// # Control thread
//
// All transition state is owned by one control thread, the [Looper].
// Remote callbacks ([Runner.OnAnimationStart], activity-ready signals,
// overview commands) may arrive on any goroutine and are posted to it.
// Nothing on the control thread blocks: a transition that arrives before
// the host has resumed is parked as a continuation and re-posted on resume.
//
// # Completion
//
// Every transition start is answered exactly once. If the host is
// destroyed, the factory panics, or the engine is torn down with
// transitions still deferred, the minimal fallback closing animation plays
// instead and the result still finishes.
//
// # Sub-packages
//
// The remote package carries the window-manager protocol over a unix
// socket. The preview package renders leashes with [Ebitengine] for
// interactive inspection.
//
// Property curves come from [gween].
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package seam
