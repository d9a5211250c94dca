package treewalk

// Generator produces one row per Next call. The walker is suspended between calls.
// Next returns ok=false once the walk is exhausted. Close abandons the walk and
// releases whatever it still holds; it is safe to call more than once.
type Generator[R any] interface {
	Next() (row R, ok bool, err error)
	Close()
}

// Drain pulls every row out of a generator and closes it.
func Drain[R any](generator Generator[R]) ([]R, error) {

	defer generator.Close()

	rows := make([]R, 0)

	for {
		row, ok, err := generator.Next()

		if err != nil {
			return nil, err
		}

		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
