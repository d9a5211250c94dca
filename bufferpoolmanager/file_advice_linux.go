//go:build linux

package bufferpoolmanager

import (
	"os"

	"golang.org/x/sys/unix"
)

func adviseSequential(file *os.File) error {
	return unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

func readPageAt(file *os.File, data []byte, offset int64) (int, error) {
	return unix.Pread(int(file.Fd()), data, offset)
}
