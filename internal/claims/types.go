package claims

// Severity levels assigned to individual damages by the detector.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityNone     = "none"
)

// Damage types the detector is allowed to emit.
const (
	DamageScratch     = "scratch"
	DamageDent        = "dent"
	DamageCrack       = "crack"
	DamageShatter     = "shatter"
	DamageDeformation = "deformation"
	DamagePaint       = "paint_damage"
	DamageStructural  = "structural"
)

// Repair actions chosen by the cost estimator.
const (
	ActionRepair  = "Repair"
	ActionReplace = "Replace"
)

// Damage is a single detected defect on the vehicle. Damages are produced by
// the detection collaborator and never mutated afterwards.
type Damage struct {
	Part        string  `json:"part"`
	DamageType  string  `json:"damage_type"`
	Severity    string  `json:"severity"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// DetectionResult is the structured output of the damage detector.
type DetectionResult struct {
	VehicleDetected bool     `json:"vehicle_detected"`
	VehicleType     string   `json:"vehicle_type"`
	VehicleColor    string   `json:"vehicle_color"`
	Damages         []Damage `json:"damages"`
	OverallSeverity string   `json:"overall_severity"`
	Drivable        bool     `json:"drivable"`
	Summary         string   `json:"summary"`
}
