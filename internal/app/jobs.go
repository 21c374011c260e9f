package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vendlink/vendcentral/pkg/metrics"
	"go.uber.org/zap"
)

// Devices that have not synced, settled or pushed data within this window
// are flagged offline by the sweep job.
const deviceStaleAfter = 15 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var startedAt = time.Now()

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 5m", func() {
		a.SchedDeviceSweepTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 30s", func() {
		metrics.SetGauge("system_uptime_sec", int64(time.Since(startedAt).Seconds()))
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedDeviceSweepTask flags devices with a stale heartbeat as offline.
func (a *Application) SchedDeviceSweepTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := a.fleet.SweepStale(ctx, deviceStaleAfter)
	if err != nil {
		zap.L().Error("device sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("devices flagged offline", zap.Int64("count", n))
	}
}
