package enums

// Actor identifies who performed a status change in history records.
type Actor string

const (
	ActorUser   Actor = "USER"
	ActorAdmin  Actor = "ADMIN"
	ActorSystem Actor = "SYSTEM"
)

// String implements fmt.Stringer.
func (a Actor) String() string {
	return string(a)
}
