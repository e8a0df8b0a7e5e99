// Package api implements the HTTP control surface for the socket daemon.
//
// This package provides:
//   - Command endpoints for the master switch and individual outlets
//   - Status endpoints returning the normalized outlet map
//   - WebSocket event stream for connectivity and command broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server sits in front of a single switch dispatcher, which owns outlet
// validation and master-switch semantics and forwards commands to whichever
// Tuya transport (cloud or local) was selected at startup. Outlet numbers
// are checked before any device I/O, so a bad request never costs a network
// round trip.
//
// The command routes accept both GET and POST. GET makes the surface
// scriptable from a browser bookmark or a bare curl; POST is there for
// clients that treat state changes properly.
//
// There is no authentication layer. The daemon is meant to sit on a trusted
// home network behind the MQTT broker's own auth boundary.
package api
