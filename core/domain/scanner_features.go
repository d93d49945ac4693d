package domain

// FeatureCount is the number of lexical features derived from a URL.
const FeatureCount = 27

// FeatureNames is the canonical feature order the classifier was trained on.
// Index i of a FeatureVector always carries FeatureNames[i].
var FeatureNames = [FeatureCount]string{
	"url_length",
	"hostname_length",
	"count_letters",
	"count_digits",
	"count_@",
	"count_?",
	"count_-",
	"count_=",
	"count_.",
	"count_#",
	"count_%",
	"count_+",
	"count_$",
	"count_!",
	"count_*",
	"count_,",
	"count_slashes",
	"count_www",
	"has_ip",
	"abnormal_url",
	"short_url",
	"https",
	"count_dir",
	"count_embed_domain",
	"fd_length",
	"tld_length",
	"suspicious",
}

// URLFeatures holds the lexical/structural features of a single URL.
// Field order matches FeatureNames.
type URLFeatures struct {
	URLLength        int `json:"url_length"`
	HostnameLength   int `json:"hostname_length"`
	CountLetters     int `json:"count_letters"`
	CountDigits      int `json:"count_digits"`
	CountAt          int `json:"count_@"`
	CountQuestion    int `json:"count_?"`
	CountHyphen      int `json:"count_-"`
	CountEquals      int `json:"count_="`
	CountDot         int `json:"count_."`
	CountHash        int `json:"count_#"`
	CountPercent     int `json:"count_%"`
	CountPlus        int `json:"count_+"`
	CountDollar      int `json:"count_$"`
	CountExclamation int `json:"count_!"`
	CountAsterisk    int `json:"count_*"`
	CountComma       int `json:"count_,"`
	CountSlashes     int `json:"count_slashes"`
	CountWWW         int `json:"count_www"`
	HasIP            int `json:"has_ip"`
	AbnormalURL      int `json:"abnormal_url"`
	ShortURL         int `json:"short_url"`
	HTTPS            int `json:"https"`
	CountDir         int `json:"count_dir"`
	CountEmbedDomain int `json:"count_embed_domain"`
	FirstDirLength   int `json:"fd_length"`
	TLDLength        int `json:"tld_length"`
	Suspicious       int `json:"suspicious"`
}

// Values returns the features as float64 in canonical order.
func (f URLFeatures) Values() [FeatureCount]float64 {
	return [FeatureCount]float64{
		float64(f.URLLength),
		float64(f.HostnameLength),
		float64(f.CountLetters),
		float64(f.CountDigits),
		float64(f.CountAt),
		float64(f.CountQuestion),
		float64(f.CountHyphen),
		float64(f.CountEquals),
		float64(f.CountDot),
		float64(f.CountHash),
		float64(f.CountPercent),
		float64(f.CountPlus),
		float64(f.CountDollar),
		float64(f.CountExclamation),
		float64(f.CountAsterisk),
		float64(f.CountComma),
		float64(f.CountSlashes),
		float64(f.CountWWW),
		float64(f.HasIP),
		float64(f.AbnormalURL),
		float64(f.ShortURL),
		float64(f.HTTPS),
		float64(f.CountDir),
		float64(f.CountEmbedDomain),
		float64(f.FirstDirLength),
		float64(f.TLDLength),
		float64(f.Suspicious),
	}
}

// Vector converts the features into the named vector handed to a classifier.
func (f URLFeatures) Vector() FeatureVector {
	values := f.Values()
	names := make([]string, FeatureCount)
	copy(names, FeatureNames[:])
	return FeatureVector{Names: names, Values: values[:]}
}

// Named returns the features as an ordered name/value list.
func (f URLFeatures) Named() []NamedFeature {
	values := f.Values()
	out := make([]NamedFeature, FeatureCount)
	for i, name := range FeatureNames {
		out[i] = NamedFeature{Name: name, Value: values[i]}
	}
	return out
}

// FeatureVector is an ordered, named list of numeric features.
type FeatureVector struct {
	Names  []string
	Values []float64
}

// NamedFeature is one entry of an ordered feature listing.
type NamedFeature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}
