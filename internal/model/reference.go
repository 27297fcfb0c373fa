package model

// Person は登場人物の参照データを表す。
type Person struct {
	ID        int64
	Name      string
	BirthYear string
	Height    int
}

// Planet は惑星の参照データを表す。
type Planet struct {
	ID         int64
	Name       string
	Population int64
}

// Vehicle は乗り物の参照データを表す。
type Vehicle struct {
	ID         int64
	Name       string
	Crew       int
	Passengers int
}
