package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action layer. Rejections carry the engine reason in AckMsg.Reason.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrRejected   = "E_REJECTED"

	// Save slots.
	ErrEmptySlot   = "E_EMPTY_SLOT"
	ErrBadSlot     = "E_BAD_SLOT"
	ErrCorruptSave = "E_CORRUPT_SAVE"

	ErrStopped  = "E_STOPPED"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrRejected:        {},
	ErrEmptySlot:       {},
	ErrBadSlot:         {},
	ErrCorruptSave:     {},
	ErrStopped:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
