package notification

type BroadcastResult struct {
	Notification    Notification
	TotalRecipients int
}

type UsersResult struct {
	Notification   Notification
	SentCount      int
	RequestedCount int
	SentUsers      []string
	NotFoundUsers  []string
}

type UserResult struct {
	Notification Notification
	Sent         bool
}

type FallbackResult struct {
	Notification Notification
	SocketSent   bool
	PushSent     bool
}

// PushOutcome is the result of one push attempt. Err is nil when Sent.
type PushOutcome struct {
	UserId string
	Sent   bool
	Err    error
}

type PushBroadcastResult struct {
	Notification Notification
	SocketsSent  int
	PushSent     int
	PushOutcomes []PushOutcome
}

func (r PushBroadcastResult) PushFailures() []PushOutcome {
	var failures []PushOutcome
	for _, outcome := range r.PushOutcomes {
		if !outcome.Sent {
			failures = append(failures, outcome)
		}
	}

	return failures
}
