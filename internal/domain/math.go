package domain

type MathStep struct {
	Explanation string `json:"explanation"`
	Expression  string `json:"expression"`
	Result      string `json:"result"`
}

type MathSolution struct {
	FinalAnswer string     `json:"final_answer"`
	Steps       []MathStep `json:"steps"`
}
