package treewalk

// Stack is a LIFO of walk frames.
type Stack[T any] struct {
	items []T
}

func (stack *Stack[T]) Push(item T) {
	stack.items = append(stack.items, item)
}

func (stack *Stack[T]) Pop() (T, bool) {

	var zero T

	if len(stack.items) == 0 {
		return zero, false
	}

	item := stack.items[len(stack.items)-1]
	stack.items[len(stack.items)-1] = zero
	stack.items = stack.items[:len(stack.items)-1]

	return item, true
}

// Peek returns a pointer to the top frame so callers can advance it in place.
func (stack *Stack[T]) Peek() (*T, bool) {

	if len(stack.items) == 0 {
		return nil, false
	}
	return &stack.items[len(stack.items)-1], true
}

func (stack *Stack[T]) Len() int {
	return len(stack.items)
}

// Drain pops every frame, top first, and hands it to fn.
func (stack *Stack[T]) Drain(fn func(T)) {

	for {
		item, ok := stack.Pop()
		if !ok {
			return
		}
		if fn != nil {
			fn(item)
		}
	}
}
