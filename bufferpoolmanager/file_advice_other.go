//go:build !linux

package bufferpoolmanager

import "os"

func adviseSequential(file *os.File) error {
	return nil
}

func readPageAt(file *os.File, data []byte, offset int64) (int, error) {
	return file.ReadAt(data, offset)
}
