package settlement

// defaultVault 金库账户默认地址
const defaultVault = "0x000000000000000000000000000000000000ba17"
