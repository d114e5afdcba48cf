package model

import "fmt"

// TransitionError 非法状态迁移
type TransitionError struct {
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Event, e.From)
}

// transitionTable (state, event) -> state
type transitionTable[S ~string, E ~string] map[S]map[E]S

func (t transitionTable[S, E]) next(from S, event E) (S, error) {
	if to, ok := t[from][event]; ok {
		return to, nil
	}
	return from, &TransitionError{From: string(from), Event: string(event)}
}

func (t transitionTable[S, E]) terminal(s S) bool {
	return len(t[s]) == 0
}
