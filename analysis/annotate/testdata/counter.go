package counter

func count() int {
	i := 0
	for i < 10 {
		i++
	}
	return i
}

func scale(x int) int {
	return x * 2
}
