package mediator

// Unit is the response of requests that have nothing to return.
// All Unit values are equal.
type Unit struct{}

// UnitValue is the only value of Unit.
var UnitValue = Unit{}

func (Unit) String() string { return "()" }
