// Package socket maps user-facing outlet operations onto a device
// transport.
//
// The Dispatcher validates outlet numbers against the configured layout
// before any I/O happens, resolves what "master" on/off means (one
// designated outlet, or every outlet in turn), and passes everything
// else straight through to the transport.
//
// Commands are deliberately not serialised: the device applies writes
// in arrival order and the last one wins, which is exactly what two
// people pressing buttons on the same socket expect.
package socket
