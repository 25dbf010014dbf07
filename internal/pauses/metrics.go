package pauses

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pauseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_pause_requests_total",
		Help: "Pause requests by outcome.",
	}, []string{"outcome"})

	resumeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_resume_requests_total",
		Help: "Manual resume requests by outcome.",
	}, []string{"outcome"})

	autoResumeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_auto_resumes_total",
		Help: "Recordings auto-resumed, by path (timer or sweep).",
	}, []string{"path"})

	autoResumeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_auto_resume_failures_total",
		Help: "Auto-resume attempts that failed and were left for the next sweep.",
	}, []string{"path"})

	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pci_auto_resume_sweeps_total",
		Help: "Reconciliation sweep runs by result.",
	}, []string{"result"})

	armedTimers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pci_auto_resume_timers_armed",
		Help: "Local auto-resume timers currently armed in this process.",
	})
)
