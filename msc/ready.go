package msc

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/ardnew/usbdisk/pkg"
)

// waitReady polls the device with TEST UNIT READY until it reports
// ready or the attempt budget is exhausted.
//
// The first probe is issued immediately. Each recovery attempt drains
// pending sense data with REQUEST SENSE (spinning devices report "not
// ready, becoming ready" until the motor is up, and the sense state
// must be consumed before the next probe), then probes again, pausing
// the configured interval between attempts.
//
// A failed probe is a protocol-level outcome, not a transport error:
// only transfer failures abort the loop early. Exhausting the budget
// returns ErrDeviceNotReady.
func (d *Disk) waitReady(ctx context.Context) error {
	tur := TestUnitReadyCDB(d.lun)

	if err := d.command(ctx, CBWFlagDataOut, tur[:], nil); err != nil {
		return err
	}
	if d.csw.Status == CSWStatusGood {
		pkg.LogDebug(pkg.ComponentDisk, "unit ready", "attempts", 0)
		return nil
	}

	sense := RequestSenseCDB(SenseResponseSize)
	var senseBuf [SenseResponseSize]byte
	attempt := 0

	probe := func() error {
		attempt++

		if err := d.command(ctx, CBWFlagDataIn, sense[:], senseBuf[:]); err != nil {
			return backoff.Permanent(err)
		}
		var sd SenseData
		if ParseSense(senseBuf[:], &sd) {
			pkg.LogDebug(pkg.ComponentDisk, "sense",
				"attempt", attempt,
				"key", sd.SenseKey,
				"asc", sd.ASC,
				"ascq", sd.ASCQ)
		}

		if err := d.command(ctx, CBWFlagDataOut, tur[:], nil); err != nil {
			return backoff.Permanent(err)
		}
		if d.csw.Status != CSWStatusGood {
			return ErrDeviceNotReady
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(d.readyInterval),
			uint64(d.readyAttempts-1)),
		ctx)

	if err := backoff.Retry(probe, bo); err != nil {
		pkg.LogWarn(pkg.ComponentDisk, "device never became ready",
			"attempts", attempt)
		return err
	}

	pkg.LogDebug(pkg.ComponentDisk, "unit ready", "attempts", attempt)
	return nil
}
