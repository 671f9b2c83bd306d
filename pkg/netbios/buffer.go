package netbios

// Buffer accumulates raw stream bytes and yields complete session packets.
type Buffer struct {
	data []byte
}

// Append adds received bytes to the buffer.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// HasPacket reports whether a complete session packet is buffered.
func (b *Buffer) HasPacket() bool {
	if len(b.data) < HeaderSize {
		return false
	}
	return len(b.data) >= HeaderSize+packetLength(b.data)
}

// Next parses and removes one packet from the buffer. It must only be called
// when HasPacket is true; a decode failure is fatal for the connection and is
// surfaced as an error.
func (b *Buffer) Next() (*SessionPacket, error) {
	var pkt SessionPacket
	if err := pkt.Unmarshal(b.data); err != nil {
		return nil, err
	}
	b.data = b.data[HeaderSize+len(pkt.Payload):]
	return &pkt, nil
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}
