// confstake 机密质押账本节点与运维工具
package main

func main() {
	Execute()
}
