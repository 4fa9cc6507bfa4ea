package events

import "time"

// GraphQLStart is emitted once a request passed validation, before execution.
type GraphQLStart struct {
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after every request, including rejected ones.
type GraphQLFinish struct {
	OperationName string
	OperationType string
	// Outcome is ok, syntax, validation or execution.
	Outcome  string
	Errors   int
	Duration time.Duration
}
