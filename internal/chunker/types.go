package chunker

// Chunk представляет единицу текста для векторизации
type Chunk struct {
	Index int    // Позиция внутри документа, с нуля
	Text  string // Текст чанка (без пробелов по краям)
}

// Chunker - интерфейс для всех типов chunker'ов
type Chunker interface {
	// Chunk разбивает тело документа на чанки
	Chunk(content string) []Chunk

	// Name возвращает название chunker'а для логирования
	Name() string
}

// Config содержит общие параметры для chunker'ов
type Config struct {
	TargetChars  int // Целевой размер чанка в символах
	OverlapChars int // Сколько символов хвоста предыдущего чанка переносить в следующий
}

// HardCapSlack - запас сверх TargetChars, после которого чанк обрезается
const HardCapSlack = 200

// DefaultConfig - параметры для основных документов (статьи)
func DefaultConfig() Config {
	return Config{TargetChars: 1200, OverlapChars: 200}
}

// DerivedConfig - параметры для коротких производных текстов (заметки, видео)
func DerivedConfig() Config {
	return Config{TargetChars: 1000, OverlapChars: 120}
}

// HardCap возвращает предельную длину чанка
func (c Config) HardCap() int {
	return c.TargetChars + HardCapSlack
}
