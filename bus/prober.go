package bus

// Prober checks a single address for a device that acknowledges it.
type Prober struct {
	bus Transport
}

func NewProber(bus Transport) *Prober {
	return &Prober{
		bus: bus,
	}
}

// ProbeStatus issues one zero-length write to addr and returns the raw
// completion status. The address is not range checked.
func (p *Prober) ProbeStatus(addr Address) Status {
	return Classify(p.bus.Tx(uint16(addr), nil, nil))
}

// Probe reports whether a device acknowledged addr. No retry is attempted.
func (p *Prober) Probe(addr Address) Outcome {
	return p.ProbeStatus(addr).Outcome()
}
