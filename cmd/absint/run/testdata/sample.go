package sample

func clamp(x int) int {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

func index(i int) int {
	if i >= 10 {
		panic("out of range")
	}
	return i
}
