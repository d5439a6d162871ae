package transfer

import "io"

// progressReader reports cumulative bytes read to the transfer.
type progressReader struct {
	r     io.Reader
	t     *Transfer
	total int64
	read  int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.t.progress(pr.read, pr.total)
	}
	return n, err
}
