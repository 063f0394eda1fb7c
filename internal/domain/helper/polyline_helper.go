package helper

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

// DecodePolyline はエンコード済みポリラインを座標列に変換する
func DecodePolyline(encoded string) (orb.LineString, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("ポリラインのデコードに失敗: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("ポリラインの末尾に不正なデータがあります: %q", string(rest))
	}

	line := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		line = append(line, orb.Point{c[1], c[0]})
	}
	return line, nil
}

// EncodePolyline は座標列を 1e5 精度のポリラインにエンコードする
func EncodePolyline(line orb.LineString) string {
	coords := make([][]float64, 0, len(line))
	for _, p := range line {
		coords = append(coords, []float64{p.Lat(), p.Lon()})
	}
	return string(polyline.EncodeCoords(coords))
}

// CombinePolylines は区間ごとのポリラインを1本に結合する。
// 前区間の終点と次区間の始点が同じ場合は接続点を1つにまとめる。
// 1本だけならそのまま返し、0本なら空文字を返す
func CombinePolylines(polylines []string) string {
	if len(polylines) == 0 {
		return ""
	}
	if len(polylines) == 1 {
		return polylines[0]
	}

	var combined orb.LineString
	for _, encoded := range polylines {
		line, err := DecodePolyline(encoded)
		if err != nil || len(line) == 0 {
			continue
		}
		if len(combined) > 0 && combined[len(combined)-1].Equal(line[0]) {
			line = line[1:]
		}
		combined = append(combined, line...)
	}

	if len(combined) == 0 {
		return ""
	}
	return EncodePolyline(combined)
}
