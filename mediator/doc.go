/*
Package mediator routes typed requests to exactly one handler and fans typed
notifications out to every handler registered for them.

Handlers are bound once at startup through an explicit Registry; New freezes the
registry so dispatch-time lookups never contend on a lock.
*/
package mediator
