package domain

import "time"

// Service identifies the school information system behind an account.
// It is a closed set: the tag alone determines the shape of the account's
// authentication payload and which adapter may process it.
type Service uint8

const (
	ServicePronote Service = iota + 1
	ServiceEcoleDirecte
	ServiceSkolengo
	ServiceLocal
	ServiceMulti
	ServiceTurboself
	ServiceARD
	ServiceIzly
)

// PrimaryServices lists the services that grant access to academic data.
var PrimaryServices = []Service{
	ServicePronote,
	ServiceEcoleDirecte,
	ServiceSkolengo,
	ServiceLocal,
	ServiceMulti,
}

// ExternalServices lists the payment/canteen-only services that can be
// linked to a primary account.
var ExternalServices = []Service{
	ServiceTurboself,
	ServiceARD,
	ServiceIzly,
}

func (s Service) String() string {
	switch s {
	case ServicePronote:
		return "pronote"
	case ServiceEcoleDirecte:
		return "ecoledirecte"
	case ServiceSkolengo:
		return "skolengo"
	case ServiceLocal:
		return "local"
	case ServiceMulti:
		return "multi"
	case ServiceTurboself:
		return "turboself"
	case ServiceARD:
		return "ard"
	case ServiceIzly:
		return "izly"
	}
	return "unknown"
}

// ParseService converts a service name back to its tag. Returns 0 when the
// name matches no known service.
func ParseService(name string) Service {
	for _, s := range append(append([]Service{}, PrimaryServices...), ExternalServices...) {
		if s.String() == name {
			return s
		}
	}
	return 0
}

// External reports whether the service is a linked payment/canteen service
// rather than a primary school identity.
func (s Service) External() bool {
	switch s {
	case ServiceTurboself, ServiceARD, ServiceIzly:
		return true
	}
	return false
}

// StudentName holds the account holder's split name as vendors report it.
type StudentName struct {
	First string
	Last  string
}

// Account is the unified representation of a stored account, primary or
// external. The Service tag is the single dispatch key; authentication is the
// service-specific credential payload. Live vendor sessions are never part of
// an Account; they are held by the reload orchestrator, keyed by LocalID.
type Account struct {
	LocalID    string
	Service    Service
	IsExternal bool

	// Primary account fields.
	StudentName            StudentName
	ClassName              string
	SchoolName             string
	LinkedExternalLocalIDs []string
	Personalization        map[string]any

	// External account fields.
	Username string

	Authentication Authentication
}

// DisplayName returns a human-readable identifier for logs and notifications.
func (a *Account) DisplayName() string {
	if a.IsExternal {
		return a.Username
	}
	if a.StudentName.First == "" && a.StudentName.Last == "" {
		return a.LocalID
	}
	return a.StudentName.First + " " + a.StudentName.Last
}

// Authentication is the per-service credential payload stored with an
// account. The concrete type is fixed by the account's Service tag.
type Authentication interface {
	isAuthentication()
}

// PronoteAuth carries the token material needed to restore a Pronote session.
// NextTimeToken rotates on every successful authentication.
type PronoteAuth struct {
	URL           string
	Username      string
	DeviceUUID    string
	NextTimeToken string
}

// EcoleDirecteAuth carries an EcoleDirecte credential pair and the device
// token issued during enrolment.
type EcoleDirecteAuth struct {
	Username    string
	Password    string
	DeviceToken string
}

// SkolengoAuth carries the OpenID token set for a Skolengo realm.
type SkolengoAuth struct {
	RealmURL     string
	AccessToken  string
	RefreshToken string
}

// MultiAuth carries an ESUP-Multi refresh token. The token is one-shot: every
// reload consumes it and yields a replacement that must be persisted.
type MultiAuth struct {
	InstanceURL  string
	RefreshToken string
}

// LocalAuth is used by locally-scraped portal accounts (IUT Lannion CAS).
// The grade report captured at login time is stored verbatim; no network
// session is ever needed.
type LocalAuth struct {
	Provider    string
	GradeReport *GradeReport
}

// TurboselfAuth carries a Turboself credential pair.
type TurboselfAuth struct {
	Username string
	Password string
}

// ARDAuth carries ARD credentials plus the school and price context needed to
// interpret wallet amounts. MealPriceCents is zero when unknown.
type ARDAuth struct {
	PID            string
	Username       string
	Password       string
	SchoolID       string
	MealPriceCents int
}

// IzlyAuth carries the Izly identification and its activation secret.
type IzlyAuth struct {
	Identification string
	Secret         string
	Currency       string
}

func (PronoteAuth) isAuthentication()      {}
func (EcoleDirecteAuth) isAuthentication() {}
func (SkolengoAuth) isAuthentication()     {}
func (MultiAuth) isAuthentication()        {}
func (LocalAuth) isAuthentication()        {}
func (TurboselfAuth) isAuthentication()    {}
func (ARDAuth) isAuthentication()          {}
func (IzlyAuth) isAuthentication()         {}

// GradeReport is the report-card snapshot a local (scraped) account carries.
type GradeReport struct {
	CapturedAt time.Time
	Resources  map[string]ResourceGrades
}

// ResourceGrades groups the evaluations of one teaching resource.
type ResourceGrades struct {
	Title       string
	Evaluations []Evaluation
}

// Evaluation is one scraped mark. Nil values mean the mark was absent
// (e.g. "~" in the source portal) and must map to a disabled grade slot.
type Evaluation struct {
	Description string
	Date        time.Time
	Coefficient float64
	Value       *float64
	Min         *float64
	Max         *float64
	Average     *float64
}
