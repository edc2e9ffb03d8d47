package catalog

// decodeLengthTypmod unpacks the single-length typmod PostgreSQL uses
// for bpchar(n)/varchar(n): typmod is length+4. -1 means unconstrained.
func decodeLengthTypmod(typmod int32) (length int, ok bool) {
	if typmod < 0 {
		return 0, false
	}
	return int(typmod) - 4, true
}

// decodeBitTypmod unpacks bit(n)/varbit(n)'s typmod, which (unlike
// bpchar/varchar) stores the declared length directly with no +4 bias.
// -1 means unconstrained (varbit with no declared length).
func decodeBitTypmod(typmod int32) (length int, ok bool) {
	if typmod < 0 {
		return 0, false
	}
	return int(typmod), true
}

// decodeVectorTypmod unpacks pgvector's vector(n)/halfvec(n)/sparsevec(n)
// typmod, which stores the declared dimension directly. -1 (or 0, which
// pgvector itself also treats as "no typmod") means dynamic/unspecified
// dimension, represented downstream as Dim 0.
func decodeVectorTypmod(typmod int32) int {
	if typmod <= 0 {
		return 0
	}
	return int(typmod)
}
