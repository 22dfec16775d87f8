// Package clock abstracts the timer surface the keeper depends on (now,
// one-shot timers, tickers, cancellable sleeps) so lifecycle tests can drive
// time by hand instead of sleeping through lead times and grace windows.
//
// System returns the wall-clock implementation. Fake is the test
// implementation; it fires due timers synchronously from Advance.
package clock
