package shared

// Asynq task types.
const (
	TypeLeaseAvailabilitySync = "lease:availability_sync"
	TypeLeaseReconcile        = "lease:reconcile"
)

// Queue names with their asynq priority weights.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// QueuePriorities is the weight table handed to the worker.
func QueuePriorities(leaseQueue string) map[string]int {
	q := map[string]int{
		QueueCritical: 6,
		QueueDefault:  3,
		QueueLow:      1,
	}
	if _, ok := q[leaseQueue]; !ok && leaseQueue != "" {
		q[leaseQueue] = 4
	}
	return q
}
