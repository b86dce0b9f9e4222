package stage

// Health is the outcome of one preflight check.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// StateLabel returns the short status word shown in preflight output.
func (h Health) StateLabel() string {
	if h.Ready {
		return "ok"
	}
	return "missing"
}
