package stage

// Health reports whether a pipeline stage can currently take work.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks a stage ready for work.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks a stage unable to take work, with the reason in Detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// String renders the probe result for logs and CLI output.
func (h Health) String() string {
	if h.Ready {
		return h.Name + ": ready"
	}
	if h.Detail == "" {
		return h.Name + ": not ready"
	}
	return h.Name + ": " + h.Detail
}
