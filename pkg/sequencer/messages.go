package sequencer

// Messages are the fixed user-facing strings for one style mode.
type Messages struct {
	Busy        string
	Failure     string
	QueueFull   string
	ModeChanged string
}

// MessageTable is keyed by style mode.
type MessageTable map[bool]Messages

func DefaultMessages() MessageTable {
	return MessageTable{
		true: {
			Busy:        "지금은 너무 바쁘다냥! 조금 있다가 답변해주겠다냥!",
			Failure:     "죄송하다냥! 요청을 처리하는 동안 오류가 발생했다냥!",
			QueueFull:   "기다리는 질문이 너무 많다냥! 나중에 다시 물어봐달라냥!",
			ModeChanged: "냥 모드가 활성화되었다냥!",
		},
		false: {
			Busy:        "현재 다른 질문을 처리 중입니다. 잠시 후에 답변 드리겠습니다.",
			Failure:     "죄송합니다. 요청을 처리하는 동안 오류가 발생했습니다.",
			QueueFull:   "대기 중인 질문이 너무 많습니다. 잠시 후 다시 시도해 주세요.",
			ModeChanged: "냥 모드가 비활성화되었습니다.",
		},
	}
}

// For returns the messages of a mode, falling back to the defaults for any empty field.
func (t MessageTable) For(styleMode bool) Messages {
	def := DefaultMessages()[styleMode]
	m, ok := t[styleMode]
	if !ok {
		return def
	}
	if m.Busy == "" {
		m.Busy = def.Busy
	}
	if m.Failure == "" {
		m.Failure = def.Failure
	}
	if m.QueueFull == "" {
		m.QueueFull = def.QueueFull
	}
	if m.ModeChanged == "" {
		m.ModeChanged = def.ModeChanged
	}
	return m
}
