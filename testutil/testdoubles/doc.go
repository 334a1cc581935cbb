// Package testdoubles provides test doubles for the livequery interfaces:
// a scripted upstream stub and spies for the observability interfaces.
// They carry no assertion logic of their own; tests inspect the recorded
// interactions directly.
package testdoubles
