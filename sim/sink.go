package sim

// RecordSink receives one record per completed job, in completion order.
// Aggregation, persistence and presentation live behind this interface,
// outside the engine.
type RecordSink interface {
	Record(job Job) error
}

// RecordSinkFunc adapts a function to RecordSink.
type RecordSinkFunc func(job Job) error

func (f RecordSinkFunc) Record(job Job) error {
	return f(job)
}

// MultiSink fans a record out to several sinks, stopping at the first error.
type MultiSink []RecordSink

func (m MultiSink) Record(job Job) error {
	for _, s := range m {
		if err := s.Record(job); err != nil {
			return err
		}
	}
	return nil
}
