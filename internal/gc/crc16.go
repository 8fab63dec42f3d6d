package gc

// CRC16 computes the CRC-16/CCITT-FALSE checksum (poly 0x1021, initial
// 0xFFFF) of data. No library in the dependency set implements this
// specific variant, and it is a short well-known bitwise loop, so it is
// hand-rolled rather than pulled in as a one-function dependency: the task
// dispatcher only needs a deterministic, well-distributed hash over a
// task's bytes to pick a shard, and this is the smallest correct
// implementation of one.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
