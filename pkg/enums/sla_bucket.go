package enums

// SLABucket is the semaforo label derived from how long a case has been open.
type SLABucket string

const (
	SLABucketGreen  SLABucket = "green"
	SLABucketYellow SLABucket = "yellow"
	SLABucketRed    SLABucket = "red"
)

// IsValid reports whether the bucket is one of the known labels.
func (b SLABucket) IsValid() bool {
	switch b {
	case SLABucketGreen, SLABucketYellow, SLABucketRed:
		return true
	}
	return false
}
