package panics

func checked(x int) int {
	if x < 0 {
		return 0
	}
	if x < 0 {
		panic("unreachable") // @NoPanic
	}
	return x
}

func bounded(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		if i < 0 {
			panic("negative index") // @NoPanic
		}
		s++
	}
	return s
}

func unchecked(x int) int {
	if x > 10 {
		panic("too large") // @MayPanic
	}
	return x
}

func divide(a, b int) int {
	if b == 0 {
		panic("division by zero") // @MayPanic
	}
	return a / b
}

func caller() int {
	return unchecked(3)
}
