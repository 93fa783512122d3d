package knowledge

// LabRange holds the reference range and critical thresholds for one lab.
// Critical thresholds are inclusive: a value equal to the boundary is
// itself critical.
type LabRange struct {
	Low          float64           `yaml:"low"`
	High         float64           `yaml:"high"`
	Unit         string            `yaml:"unit"`
	CriticalLow  float64           `yaml:"critical_low"`
	CriticalHigh float64           `yaml:"critical_high"`
	Implications map[string]string `yaml:"implications,omitempty"`
}

// Medication holds classification and monitoring data for one drug
type Medication struct {
	Class             string   `yaml:"class"`
	Subclass          string   `yaml:"subclass,omitempty"`
	Indications       []string `yaml:"indications,omitempty"`
	Contraindications []string `yaml:"contraindications,omitempty"`
	Monitoring        []string `yaml:"monitoring,omitempty"`
	HighRisk          bool     `yaml:"high_risk,omitempty"`
	MaxDose           float64  `yaml:"max_dose,omitempty"` // Per-administration ceiling
	DoseUnit          string   `yaml:"dose_unit,omitempty"`
}

// ScoreRange is the valid numeric range for a clinical score
type ScoreRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Polarity says which direction of a score counts as improvement
type Polarity int

const (
	LowerIsBetter Polarity = iota
	HigherIsBetter
)

func defaultLabRanges() map[string]LabRange {
	return map[string]LabRange{
		"sodium": {
			Low: 135, High: 145, Unit: "mmol/L",
			CriticalLow: 125, CriticalHigh: 155,
			Implications: map[string]string{
				"critical_low":  "Risk of seizures, altered mental status",
				"low":           "Monitor for neurological symptoms",
				"critical_high": "Risk of central pontine myelinolysis with rapid correction",
			},
		},
		"potassium": {
			Low: 3.5, High: 5.0, Unit: "mmol/L",
			CriticalLow: 2.5, CriticalHigh: 6.5,
			Implications: map[string]string{
				"critical_low":  "Risk of cardiac arrhythmias, muscle weakness",
				"low":           "Monitor cardiac rhythm",
				"high":          "Risk of cardiac arrest",
				"critical_high": "Immediate treatment required - life-threatening",
			},
		},
		"glucose": {
			Low: 70, High: 110, Unit: "mg/dL",
			CriticalLow: 40, CriticalHigh: 500,
			Implications: map[string]string{
				"critical_low":  "Risk of seizures, loss of consciousness",
				"low":           "Monitor for hypoglycemic symptoms",
				"high":          "Risk of DKA, infection complications",
				"critical_high": "Hyperosmolar state risk",
			},
		},
		"hemoglobin": {
			Low: 12, High: 16, Unit: "g/dL",
			CriticalLow: 7, CriticalHigh: 20,
			Implications: map[string]string{
				"critical_low": "Transfusion may be required",
				"low":          "Monitor for symptoms of anemia",
				"high":         "Risk of hyperviscosity",
			},
		},
		"platelets": {
			Low: 150, High: 400, Unit: "K/uL",
			CriticalLow: 50, CriticalHigh: 1000,
			Implications: map[string]string{
				"critical_low": "High bleeding risk - consider transfusion",
				"low":          "Monitor for bleeding",
				"high":         "Monitor for thrombosis",
			},
		},
		"inr": {
			Low: 0.8, High: 1.2, Unit: "",
			CriticalLow: 0.5, CriticalHigh: 5.0,
			Implications: map[string]string{
				"high":          "Bleeding risk - review anticoagulation",
				"critical_high": "High bleeding risk - immediate management required",
			},
		},
		"wbc": {
			Low: 4.5, High: 11.0, Unit: "K/uL",
			CriticalLow: 2.0, CriticalHigh: 30.0,
			Implications: map[string]string{
				"critical_low":  "Severe immunosuppression - infection risk",
				"low":           "Monitor for infection",
				"high":          "Possible infection or inflammatory process",
				"critical_high": "Severe infection - urgent evaluation",
			},
		},
		"creatinine": {
			Low: 0.6, High: 1.2, Unit: "mg/dL",
			CriticalLow: 0.3, CriticalHigh: 5.0,
			Implications: map[string]string{
				"high":          "Renal dysfunction - adjust medication doses",
				"critical_high": "Acute kidney injury - nephrology consultation",
			},
		},
	}
}

func defaultMedications() map[string]Medication {
	return map[string]Medication{
		"nimodipine": {
			Class: "Calcium Channel Blocker", Subclass: "Dihydropyridine",
			Indications:       []string{"Vasospasm prophylaxis", "SAH"},
			Contraindications: []string{"Hypotension", "Severe hepatic impairment"},
			Monitoring:        []string{"Blood pressure", "Heart rate", "Hepatic function"},
			HighRisk:          true,
			MaxDose:           90, DoseUnit: "mg",
		},
		"levetiracetam": {
			Class: "Antiepileptic", Subclass: "SV2A ligand",
			Indications: []string{"Seizure prophylaxis", "Post-craniotomy"},
			Monitoring:  []string{"Renal function", "Mood changes"},
			MaxDose:     1500, DoseUnit: "mg",
		},
		"phenytoin": {
			Class: "Antiepileptic", Subclass: "Sodium channel blocker",
			Indications:       []string{"Seizure prophylaxis", "Status epilepticus"},
			Contraindications: []string{"Heart block", "Sinus bradycardia"},
			Monitoring:        []string{"Phenytoin level", "CBC", "LFTs"},
			HighRisk:          true,
			MaxDose:           600, DoseUnit: "mg",
		},
		"dexamethasone": {
			Class: "Corticosteroid", Subclass: "Glucocorticoid",
			Indications:       []string{"Cerebral edema", "Elevated ICP"},
			Contraindications: []string{"Systemic infection", "GI bleeding"},
			Monitoring:        []string{"Glucose", "Blood pressure", "GI symptoms"},
			MaxDose:           40, DoseUnit: "mg",
		},
		"mannitol": {
			Class:             "Osmotic diuretic",
			Indications:       []string{"Elevated ICP", "Cerebral edema"},
			Contraindications: []string{"Anuria", "Pulmonary edema"},
			Monitoring:        []string{"Serum osmolality", "Renal function", "Electrolytes"},
			HighRisk:          true,
			MaxDose:           100, DoseUnit: "g",
		},
		"heparin": {
			Class: "Anticoagulant", Subclass: "Unfractionated",
			Indications:       []string{"DVT prophylaxis", "DVT/PE treatment"},
			Contraindications: []string{"Active bleeding", "Recent neurosurgery"},
			Monitoring:        []string{"PTT", "Platelet count", "Signs of bleeding"},
			HighRisk:          true,
			MaxDose:           50000, DoseUnit: "units",
		},
		"enoxaparin": {
			Class: "Anticoagulant", Subclass: "Low molecular weight heparin",
			Indications:       []string{"DVT prophylaxis", "DVT/PE treatment"},
			Contraindications: []string{"Active bleeding", "Severe renal impairment"},
			Monitoring:        []string{"Renal function", "Platelet count"},
			HighRisk:          true,
			MaxDose:           150, DoseUnit: "mg",
		},
		"warfarin": {
			Class: "Anticoagulant", Subclass: "Vitamin K antagonist",
			Indications:       []string{"DVT/PE", "Atrial fibrillation"},
			Contraindications: []string{"Active bleeding", "Pregnancy"},
			Monitoring:        []string{"INR", "Signs of bleeding"},
			HighRisk:          true,
			MaxDose:           15, DoseUnit: "mg",
		},
		"morphine": {
			Class:             "Opioid analgesic",
			Indications:       []string{"Pain management", "Post-operative pain"},
			Contraindications: []string{"Respiratory depression", "Head injury with altered consciousness"},
			Monitoring:        []string{"Respiratory rate", "Mental status"},
			HighRisk:          true,
			MaxDose:           30, DoseUnit: "mg",
		},
		"fentanyl": {
			Class:             "Opioid analgesic",
			Indications:       []string{"Pain management", "Procedural sedation"},
			Contraindications: []string{"Respiratory depression"},
			Monitoring:        []string{"Respiratory rate", "Sedation level"},
			HighRisk:          true,
			MaxDose:           200, DoseUnit: "mcg",
		},
		"vancomycin": {
			Class: "Antibiotic", Subclass: "Glycopeptide",
			Indications: []string{"MRSA coverage", "Post-operative prophylaxis"},
			Monitoring:  []string{"Trough levels", "Renal function", "Hearing"},
			MaxDose:     2000, DoseUnit: "mg",
		},
		"cefazolin": {
			Class: "Antibiotic", Subclass: "Cephalosporin (1st gen)",
			Indications:       []string{"Surgical prophylaxis"},
			Contraindications: []string{"Beta-lactam allergy"},
			Monitoring:        []string{"Allergic reactions", "Renal function"},
			MaxDose:           2000, DoseUnit: "mg",
		},
	}
}

func defaultScoreRanges() map[string]ScoreRange {
	return map[string]ScoreRange{
		"NIHSS":           {Min: 0, Max: 42},
		"GCS":             {Min: 3, Max: 15},
		"mRS":             {Min: 0, Max: 6},
		"Hunt-Hess":       {Min: 1, Max: 5},
		"Fisher":          {Min: 1, Max: 4},
		"WFNS":            {Min: 1, Max: 5},
		"Spetzler-Martin": {Min: 1, Max: 5},
	}
}

func defaultScorePolarity() map[string]Polarity {
	return map[string]Polarity{
		"NIHSS":     LowerIsBetter, // Deficit score
		"mRS":       LowerIsBetter, // Disability score
		"Hunt-Hess": LowerIsBetter,
		"GCS":       HigherIsBetter, // Consciousness score
	}
}

// Additional high-risk name fragments beyond the classified table
func defaultHighRiskPatterns() []string {
	return []string{
		"warfarin", "heparin", "enoxaparin", "insulin",
		"morphine", "fentanyl", "methotrexate",
		"tpa", "alteplase", "chemotherapy",
	}
}

// TemporalKind classifies a relative-time expression
type TemporalKind string

const (
	TemporalPOD         TemporalKind = "post_operative_day"
	TemporalHD          TemporalKind = "hospital_day"
	TemporalHoursAfter  TemporalKind = "hours_after"
	TemporalDaysAfter   TemporalKind = "days_after"
	TemporalNextMorning TemporalKind = "next_morning"
	TemporalPrevDay     TemporalKind = "previous_day"
	TemporalSameDay     TemporalKind = "same_day"
	TemporalSameEvening TemporalKind = "same_evening"
	TemporalNextDay     TemporalKind = "next_day"
)

// temporalPattern pairs a regex with the kind it recognizes; order matters,
// the first matching pattern wins.
type temporalPattern struct {
	expr string
	kind TemporalKind
}

func defaultTemporalPatterns() []temporalPattern {
	return []temporalPattern{
		{`POD[#\s]*(\d+)`, TemporalPOD},
		{`HD[#\s]*(\d+)`, TemporalHD},
		{`(\d+)\s*hours?\s*(?:later|after|post)`, TemporalHoursAfter},
		{`(\d+)\s*days?\s*(?:later|after|post)`, TemporalDaysAfter},
		{`overnight`, TemporalNextMorning},
		{`yesterday`, TemporalPrevDay},
		{`last night`, TemporalPrevDay},
		{`this morning`, TemporalSameDay},
		{`tonight`, TemporalSameEvening},
		{`the following day`, TemporalNextDay},
		{`today`, TemporalSameDay},
	}
}
