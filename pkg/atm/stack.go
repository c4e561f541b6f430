package atm

// CallStack is a fixed-depth stack of CALL frames. Push and Pop fail instead
// of writing outside the table.
type CallStack struct {
	frames [StackDepth]frame
	depth  int
}

// Len returns the number of frames on the stack
func (stack *CallStack) Len() int {
	return stack.depth
}

// Push saves a return cursor with the caller's repeat counter and track
func (stack *CallStack) Push(returnTo int, counter uint8, track uint8) error {
	if stack.depth == len(stack.frames) {
		return ErrStackOverflow
	}
	stack.frames[stack.depth] = frame{returnTo: returnTo, counter: counter, track: track}
	stack.depth++
	return nil
}

// Pop restores the most recent frame
func (stack *CallStack) Pop() (returnTo int, counter uint8, track uint8, err error) {
	if stack.depth == 0 {
		return 0, 0, 0, ErrStackUnderflow
	}
	stack.depth--
	top := stack.frames[stack.depth]
	stack.frames[stack.depth] = frame{}
	return top.returnTo, top.counter, top.track, nil
}

// Reset empties the stack
func (stack *CallStack) Reset() {
	*stack = CallStack{}
}
