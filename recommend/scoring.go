package recommend

// Product is one of the three recommendable product variants.
type Product string

const (
	// Modal: business capital loans for micro-entrepreneurs
	ProductModal Product = "Modal"
	// Celengan: savings/investment for those with extra money
	ProductCelengan Product = "Celengan"
	// AmarthaLink: digital transaction services for agents/retailers
	ProductAmarthaLink Product = "AmarthaLink"
)

// Scores accumulates weighted contributions per product during one
// evaluation. Discarded after use.
type Scores struct {
	Modal       int
	Celengan    int
	AmarthaLink int
}

// scoringRules maps (question id, option) to score contributions. Static,
// additive and independent across questions.
var scoringRules = map[int]map[string]Scores{
	1: {
		"Menambah modal usaha":         {Modal: 3},
		"Mencari penghasilan tambahan": {AmarthaLink: 3},
		"Menabung":                     {Celengan: 3},
	},
	2: {
		"Warung kelontong atau kios":     {Modal: 2, AmarthaLink: 2},
		"Bertani atau beternak":          {Modal: 2},
		"Kuliner (makanan atau minuman)": {Modal: 2, AmarthaLink: 1},
		"Jasa atau layanan":              {Modal: 1, AmarthaLink: 1},
		"Produksi atau kerajinan":        {Modal: 2},
		"Tidak ada":                      {Celengan: 2, AmarthaLink: 1},
	},
	3: {
		"Ramai":         {Modal: 2, AmarthaLink: 2},
		"Sepi":          {Modal: 1},
		"Tidak menentu": {Modal: 1, AmarthaLink: 1},
	},
	4: {
		"Masih sering bingung": {Modal: 1},
		"Lumayan bisa":         {Modal: 1, AmarthaLink: 1},
		"Sudah cukup lancar":   {AmarthaLink: 2, Celengan: 1},
		"Lancar sekali":        {AmarthaLink: 3, Celengan: 2},
	},
	5: {
		"Selalu habis":          {Modal: 2},
		"Ada sisa sedikit":      {Modal: 1, AmarthaLink: 1},
		"Ada sisa cukup banyak": {Celengan: 3, AmarthaLink: 1},
	},
}

// Score tallies the contributions of every (question, answer) pair.
// Unknown questions or options contribute nothing.
func Score(answers AnswerSet) Scores {
	var scores Scores
	for questionID, answer := range answers {
		rule, ok := scoringRules[questionID][answer]
		if !ok {
			continue
		}
		scores.Modal += rule.Modal
		scores.Celengan += rule.Celengan
		scores.AmarthaLink += rule.AmarthaLink
	}
	return scores
}

// Recommend maps a completed answer set to exactly one product. Total: an
// empty answer set yields Modal. Ties are broken in the fixed priority order
// Modal, Celengan, AmarthaLink; keep this order for reproducibility.
func Recommend(answers AnswerSet) Product {
	scores := Score(answers)

	max := scores.Modal
	if scores.Celengan > max {
		max = scores.Celengan
	}
	if scores.AmarthaLink > max {
		max = scores.AmarthaLink
	}

	if scores.Modal == max {
		return ProductModal
	}
	if scores.Celengan == max {
		return ProductCelengan
	}
	return ProductAmarthaLink
}
