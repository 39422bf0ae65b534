package domain

// Zero scrubs key material in place. Callers zero DEKs and intermediate
// buffers as soon as they fall out of use, so plaintext keys spend as little
// time in memory as the code can arrange.
func Zero(b []byte) {
	clear(b)
}
