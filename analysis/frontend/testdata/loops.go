package loops

func count() int {
	i := 0
	for i < 10 {
		i++
	}
	return i
}

func sum(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func check(x int) {
	if x < 0 {
		panic("negative")
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func caller() int {
	check(3)
	return abs(-4)
}

func mayPanic(x int) {
	check(x)
}

func closure() int {
	f := func(y int) int { return y * 2 }
	return f(2)
}

func describe(x int) string {
	if x > 0 {
		return "positive"
	}
	return "other"
}

//absint:ignore
func ignored() int {
	return 1
}
