package stake

const (
	// defaultStrictSender 默认启用严格发送方校验，只接受预言机主体的回调
	defaultStrictSender = true

	// defaultLedgerPrincipal 账本主体的默认地址
	defaultLedgerPrincipal = "0x00000000000000000000000000000000000c57a4"
)
