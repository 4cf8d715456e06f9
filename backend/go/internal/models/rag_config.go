package models

// RAGConfig is the settings document saved by the UI config panel.
// Every section is optional; the file is stored wholesale without validation.
type RAGConfig struct {
	Server     *RAGServerSettings     `json:"server,omitempty"`
	LLM        *RAGLLMSettings        `json:"llm,omitempty"`
	Embedding  *RAGEmbeddingSettings  `json:"embedding,omitempty"`
	Processing *RAGProcessingSettings `json:"processing,omitempty"`
	RAGQuery   *RAGQuerySettings      `json:"ragQuery,omitempty"`
	Database   *RAGDatabaseSettings   `json:"database,omitempty"`
}

type RAGServerSettings struct {
	Host             string `json:"host,omitempty"`
	Port             int    `json:"port,omitempty"`
	WebUITitle       string `json:"webUITitle,omitempty"`
	WebUIDescription string `json:"webUIDescription,omitempty"`
	LogLevel         string `json:"logLevel,omitempty"`
	TiktokenCacheDir string `json:"tiktokenCacheDir,omitempty"`
	AuthAccounts     string `json:"authAccounts,omitempty"`
	TokenSecret      string `json:"tokenSecret,omitempty"`
	TokenExpireHours int    `json:"tokenExpireHours,omitempty"`
	LightragAPIKey   string `json:"lightragApiKey,omitempty"`
	SSL              bool   `json:"ssl,omitempty"`
	SSLCertfile      string `json:"sslCertfile,omitempty"`
	SSLKeyfile       string `json:"sslKeyfile,omitempty"`
	InputDir         string `json:"inputDir,omitempty"`
	LogDir           string `json:"logDir,omitempty"`
}

type RAGLLMSettings struct {
	EnableCache           bool    `json:"enableCache,omitempty"`
	EnableCacheForExtract bool    `json:"enableCacheForExtract,omitempty"`
	Timeout               int     `json:"timeout,omitempty"`
	Temperature           float64 `json:"temperature,omitempty"`
	MaxAsync              int     `json:"maxAsync,omitempty"`
	MaxTokens             int     `json:"maxTokens,omitempty"`
	Binding               string  `json:"binding,omitempty"`
	Model                 string  `json:"model,omitempty"`
	Host                  string  `json:"host,omitempty"`
	APIKey                string  `json:"apiKey,omitempty"`
	AzureAPIVersion       string  `json:"azureApiVersion,omitempty"`
	AzureDeployment       string  `json:"azureDeployment,omitempty"`
}

type RAGEmbeddingSettings struct {
	Binding         string `json:"binding,omitempty"`
	Model           string `json:"model,omitempty"`
	Dim             int    `json:"dim,omitempty"`
	APIKey          string `json:"apiKey,omitempty"`
	Host            string `json:"host,omitempty"`
	BatchNum        int    `json:"batchNum,omitempty"`
	MaxAsync        int    `json:"maxAsync,omitempty"`
	AzureDeployment string `json:"azureDeployment,omitempty"`
}

type RAGProcessingSettings struct {
	ParseMethod           string `json:"parseMethod,omitempty"`
	OutputDir             string `json:"outputDir,omitempty"`
	Parser                string `json:"parser,omitempty"`
	EnableImageProcessing bool   `json:"enableImageProcessing,omitempty"`
	EnableTableProcessing bool   `json:"enableTableProcessing,omitempty"`
	ChunkSize             int    `json:"chunkSize,omitempty"`
	ChunkOverlap          int    `json:"chunkOverlap,omitempty"`
	SummaryLanguage       string `json:"summaryLanguage,omitempty"`
}

type RAGQuerySettings struct {
	HistoryTurns          int     `json:"historyTurns,omitempty"`
	CosineThreshold       float64 `json:"cosineThreshold,omitempty"`
	TopK                  int     `json:"topK,omitempty"`
	MaxTokensTextChunk    int     `json:"maxTokensTextChunk,omitempty"`
	MaxTokensRelationDesc int     `json:"maxTokensRelationDesc,omitempty"`
	MaxTokensEntityDesc   int     `json:"maxTokensEntityDesc,omitempty"`
}

type RAGDatabaseSettings struct {
	KVStorage        string               `json:"kvStorage,omitempty"`
	VectorStorage    string               `json:"vectorStorage,omitempty"`
	DocStatusStorage string               `json:"docStatusStorage,omitempty"`
	GraphStorage     string               `json:"graphStorage,omitempty"`
	Postgres         *RAGPostgresSettings `json:"postgres,omitempty"`
	Neo4j            *RAGNeo4jSettings    `json:"neo4j,omitempty"`
}

type RAGPostgresSettings struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
}

type RAGNeo4jSettings struct {
	URI      string `json:"uri,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}
