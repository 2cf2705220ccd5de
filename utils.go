package symcache

import "io"

func tryClose(r io.ReaderAt) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func fallbackRoots() []string {
	return []string{
		`C:\Windows\System32`,
		`C:\Windows\SysWOW64`,
	}
}
