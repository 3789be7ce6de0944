// Package profile loads speed-profile time series for replay against the
// wheel driver.
package profile

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/flywheel.go/pkg/framework"
)

// Profile is a speed time series in RPM.
type Profile struct {
	Speeds []float32
}

// Load reads a profile file: one speed per line, or the first column of CSV
// rows. Rows that do not parse as a number are skipped. An empty profile is
// an error.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var speeds []float32
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 32)
		if err != nil {
			glog.Warningf("skipped profile row %q: %v", row[0], err)
			continue
		}
		speeds = append(speeds, float32(v))
	}
	if len(speeds) == 0 {
		return nil, errors.New("no valid speed data in " + path)
	}
	return &Profile{Speeds: speeds}, nil
}

// Last returns the final speed of the series.
func (p *Profile) Last() float32 {
	return p.Speeds[len(p.Speeds)-1]
}

// Replay steps through the series at rate Hz, calling set once per tick.
// When the series is exhausted it keeps setting the final value until ctx
// is canceled. set failures are logged, not fatal.
func (p *Profile) Replay(ctx context.Context, rate float64, set func(float32) error) error {
	pacer := fx.PacerAt(rate)
	i := 0
	for ctx.Err() == nil {
		var v float32
		if i < len(p.Speeds) {
			v = p.Speeds[i]
			i++
			if i == len(p.Speeds) {
				glog.Infof("profile exhausted, holding last speed %g RPM", v)
			}
		} else {
			v = p.Last()
		}
		if err := set(v); err != nil {
			glog.Errorf("set speed %g: %v", v, err)
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}
