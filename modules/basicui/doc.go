// Package basicui provides the basic interface kinds: a hello world source,
// a push button, a text viewer, a command sender and a fake data generator.
//
// Every kind here emits synchronously from Input or from its press action, so
// a press on a Button reaches every downstream module before Press returns.
package basicui
