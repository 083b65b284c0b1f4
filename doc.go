// Package ipcwire implements a symmetric, connection-oriented
// interprocess-communication protocol: a client and a server process
// exchange typed commands, queries, pushed updates, and arbitrary byte
// payloads over a stream transport (TCP, or a local filesystem socket when
// the service name is a path).
//
// Two peers connect under a named topic; afterwards either side may issue
// Execute, Request/Reply, Poke, StartAdvise/StopAdvise, Advise, and
// Disconnect. The wire format is a fixed framed binary protocol (see
// frame.go); application behavior is supplied through the Handler
// capability set (see handler.go).
package ipcwire
