package table

import (
	"io"

	"i2c-scan/bus"
)

// Renderer probes the bus row by row and prints each row as soon as it is
// complete. Output is byte-identical to Sweep followed by WriteTo.
type Renderer struct {
	prober Prober
	rng    Range
}

func NewRenderer(p Prober, rng Range) *Renderer {
	return &Renderer{
		prober: p,
		rng:    rng,
	}
}

// Render runs one sweep. Probe failures only show up as dots; the returned
// error is always a write error from w.
func (r *Renderer) Render(w io.Writer) (Table, error) {
	var t Table
	if _, err := io.WriteString(w, Header()+"\n"); err != nil {
		return t, err
	}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			a := bus.Address(row*Columns + col)
			t.cells[a] = probeCell(r.prober, r.rng, a)
		}
		if _, err := io.WriteString(w, t.Row(row)+"\n"); err != nil {
			return t, err
		}
	}
	return t, nil
}
