package viewmodels

type DesignationTreeNode struct {
	ID       string
	Name     string
	Level    int
	Depth    int
	Children []*DesignationTreeNode
}

type DesignationTree struct {
	Roots []*DesignationTreeNode
	Count int
}
