package convo

// Policy bounds the view of a context handed to the completion provider.
// MaxTurns <= 0 sends the whole context.
type Policy struct {
	MaxTurns int
}

// Window returns the leading system messages followed by at most MaxTurns of the
// most recent other messages. msgs is not modified.
func (p Policy) Window(msgs []Message) []Message {
	if p.MaxTurns <= 0 {
		return copyMessages(msgs)
	}
	var head, rest []Message
	for i, m := range msgs {
		if m.Role != RoleSystem {
			rest = msgs[i:]
			break
		}
		head = msgs[:i+1]
	}
	if len(rest) > p.MaxTurns {
		rest = rest[len(rest)-p.MaxTurns:]
	}
	out := make([]Message, 0, len(head)+len(rest))
	out = append(out, head...)
	return append(out, rest...)
}
