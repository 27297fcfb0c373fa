package model

import (
	"fmt"
	"strings"
	"time"
)

// TargetKind はお気に入り対象の種別を表す。
type TargetKind string

const (
	// TargetPerson は登場人物を対象とする。
	TargetPerson TargetKind = "person"
	// TargetPlanet は惑星を対象とする。
	TargetPlanet TargetKind = "planet"
	// TargetVehicle は乗り物を対象とする。
	TargetVehicle TargetKind = "vehicle"
)

// ParseTargetKind はURLパス等で使われる種別名をTargetKindに変換する。
// 複数形や旧表記（vehicules）も受け付ける。
func ParseTargetKind(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "person", "people":
		return TargetPerson, nil
	case "planet", "planets":
		return TargetPlanet, nil
	case "vehicle", "vehicles", "vehicule", "vehicules":
		return TargetVehicle, nil
	default:
		return "", fmt.Errorf("unknown target kind: %q", s)
	}
}

// Target はお気に入りが指す1件の参照エンティティ。
// Person / Planet / Vehicle のいずれか1つだけを表すタグ付きユニオンで、
// ゼロ値は無効な対象として扱う。
type Target struct {
	kind TargetKind
	id   int64
}

// NewTarget は種別とIDからTargetを生成する。
// 未知の種別または負のIDの場合はエラーを返す。
// IDの存在確認は行わない。0のような行のないIDは参照先の検索で見つからない扱いになる。
func NewTarget(kind TargetKind, id int64) (Target, error) {
	switch kind {
	case TargetPerson, TargetPlanet, TargetVehicle:
	default:
		return Target{}, fmt.Errorf("unknown target kind: %q", kind)
	}
	if id < 0 {
		return Target{}, fmt.Errorf("invalid target id: %d", id)
	}
	return Target{kind: kind, id: id}, nil
}

// PersonTarget は登場人物を指すTargetを返す。
func PersonTarget(id int64) Target { return Target{kind: TargetPerson, id: id} }

// PlanetTarget は惑星を指すTargetを返す。
func PlanetTarget(id int64) Target { return Target{kind: TargetPlanet, id: id} }

// VehicleTarget は乗り物を指すTargetを返す。
func VehicleTarget(id int64) Target { return Target{kind: TargetVehicle, id: id} }

// Kind は対象の種別を返す。
func (t Target) Kind() TargetKind { return t.kind }

// ID は対象エンティティのIDを返す。
func (t Target) ID() int64 { return t.id }

// IsZero はTargetが未設定かどうかを返す。
func (t Target) IsZero() bool { return t.kind == "" }

// String はログ出力用の表現を返す。
func (t Target) String() string {
	if t.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s:%d", t.kind, t.id)
}

// Columns はTargetを永続化用の3つのnullable列に展開する。
// 対象種別に対応する列のみ非nilになる。
func (t Target) Columns() (personID, planetID, vehicleID *int64) {
	id := t.id
	switch t.kind {
	case TargetPerson:
		personID = &id
	case TargetPlanet:
		planetID = &id
	case TargetVehicle:
		vehicleID = &id
	}
	return personID, planetID, vehicleID
}

// TargetFromColumns は3つのnullable列からTargetを復元する。
// ちょうど1列だけが設定されていない場合はエラーを返す。
func TargetFromColumns(personID, planetID, vehicleID *int64) (Target, error) {
	var (
		target Target
		set    int
	)
	if personID != nil {
		target = PersonTarget(*personID)
		set++
	}
	if planetID != nil {
		target = PlanetTarget(*planetID)
		set++
	}
	if vehicleID != nil {
		target = VehicleTarget(*vehicleID)
		set++
	}
	if set != 1 {
		return Target{}, fmt.Errorf("favorite must reference exactly one target, got %d", set)
	}
	return target, nil
}

// Favorite はユーザーと1件の参照エンティティを結ぶお気に入りレコード。
type Favorite struct {
	ID        int64
	UserID    int64
	Target    Target
	CreatedAt time.Time
}

// FavoriteDetail はお気に入りと、その対象エンティティの内容を結合したもの。
// Targetの種別に対応するフィールドだけが非nilになる。
type FavoriteDetail struct {
	Favorite
	Person  *Person
	Planet  *Planet
	Vehicle *Vehicle
}
